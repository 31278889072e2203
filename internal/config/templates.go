package config

import (
	"fmt"
	"strings"
)

// Outbound message templates. Pure functions of their arguments so the
// coordinator and scheduler stay free of wording concerns.

func SellMessage(mess, meal string, price int) string {
	return fmt.Sprintf("Sell %s %s @%d", mess, capitalize(meal), price)
}

func PaymentInstructionMessage() string {
	return "This transaction is handled by an automated system. " +
		"Please reply with *done* after payment so that the system can confirm and deliver the QR."
}

func SoldMessage() string {
	return "Sorry, already sold!"
}

func UnrecognizedMessage() string {
	return "Could not understand your message. Please reply with *done* after completing the payment."
}

func TimeoutWarningMessage() string {
	return "⏳ Waiting for your payment confirmation for the next 30 seconds, else will move to the next buyer."
}

func TimeoutFinalMessage() string {
	return "Moved to the next buyer. If you still want it, reply with *wants* and I'll notify you if the QR is still available."
}

func SaleConfirmMessage(buyerName string) string {
	return fmt.Sprintf("✅ Payment confirmed!\nThank you, %s.\nEnjoy your meal!", buyerName)
}

func NegotiationAcceptedMessage(price int) string {
	return fmt.Sprintf("✅ Offer of ₹%d accepted!", price)
}

func PayViaPhoneMessage(price int, phone string) string {
	return fmt.Sprintf("You can also pay ₹%d on the same number ie %s", price, phone)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}
