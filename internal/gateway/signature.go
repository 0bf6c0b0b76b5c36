package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyPaymentSignature checks the signature Razorpay hands the client after
// payment: HMAC-SHA256 over "orderID|paymentID" with the key secret, hex
// encoded. hmac.Equal keeps the comparison constant-time.
func VerifyPaymentSignature(razorpayOrderID, razorpayPaymentID, signature, secret string) bool {
	return hmac.Equal(
		[]byte(signHex([]byte(razorpayOrderID+"|"+razorpayPaymentID), secret)),
		[]byte(signature),
	)
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header: HMAC-SHA256
// over the raw request body with the webhook secret.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	return hmac.Equal(
		[]byte(signHex(body, secret)),
		[]byte(signature),
	)
}

func signHex(message []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
