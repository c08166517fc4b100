package services

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const pickupQRSize = 256

// PickupQRCode renders code as a PNG for the pickup counter scanner.
func PickupQRCode(code string) ([]byte, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, pickupQRSize)
	if err != nil {
		return nil, fmt.Errorf("encode pickup qr: %w", err)
	}
	return png, nil
}
