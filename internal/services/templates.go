package services

import (
	"fmt"

	"github.com/agendia-app/agendia-backend/internal/models"
)

// Message templates sent through the WhatsApp gateway. All user-facing
// text is Portuguese; the clientele is Brazilian.

// PaymentLinkMessage asks the client to pay to confirm the booking
func PaymentLinkMessage(serviceName string, price float64, link string) string {
	return fmt.Sprintf(
		"Perfeito! 🎉 Para confirmar seu agendamento de *%s* (R$%.2f), realize o pagamento pelo link abaixo:\n\n%s\n\nAssim que o pagamento for aprovado, seu horário estará garantido! ✅",
		serviceName, price, link)
}

// PaymentFailedMessage tells the client link generation failed
func PaymentFailedMessage() string {
	return "❌ Não conseguimos gerar seu link de pagamento agora. Por favor, tente novamente em alguns minutos."
}

// ConfirmationMessage is sent after the payment is approved
func ConfirmationMessage(appt *models.Appointment, serviceName, professionalName, companyName string) string {
	return fmt.Sprintf(
		"✅ *Agendamento confirmado!*\n\n🏢 %s\n🔧 %s\n👨 %s\n📅 %s às %s\n💰 R$%.2f\n\nObrigado, %s! Até lá! 😊",
		companyName, serviceName, professionalName, appt.Date, appt.StartTime, appt.Price, appt.ClientName)
}

// DirectConfirmationMessage is sent when the booking confirms without an
// online payment step (plan without online payments)
func DirectConfirmationMessage(appt *models.Appointment, serviceName, professionalName, companyName string) string {
	return fmt.Sprintf(
		"✅ *Agendamento confirmado!*\n\n🏢 %s\n🔧 %s\n👨 %s\n📅 %s às %s\n\nObrigado, %s! Até lá! 😊",
		companyName, serviceName, professionalName, appt.Date, appt.StartTime, appt.ClientName)
}

// ReminderMessage is sent the day before a confirmed appointment
func ReminderMessage(appt *models.Appointment, serviceName, companyName string) string {
	return fmt.Sprintf(
		"🔔 *Lembrete de agendamento*\n\nOlá, %s! Você tem *%s* amanhã (%s) às %s na %s.\n\nCaso precise remarcar, é só responder esta mensagem.",
		appt.ClientName, serviceName, appt.Date, appt.StartTime, companyName)
}

// RepromptMessage asks the client to redo the confirmation when the summary
// could not be matched against the catalog
func RepromptMessage() string {
	return "Desculpe, não consegui localizar todos os dados do seu agendamento. 🙏 Pode me informar novamente o serviço, o profissional e o horário desejado?"
}

// SlotTakenMessage tells the client the slot was booked meanwhile
func SlotTakenMessage() string {
	return "😕 Esse horário acabou de ser preenchido. Pode escolher outro horário, por favor?"
}

// GenericErrorMessage is the fallback when processing fails
func GenericErrorMessage() string {
	return "❌ Desculpe, algo deu errado. Por favor, tente novamente."
}
