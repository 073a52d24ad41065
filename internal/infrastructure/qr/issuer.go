package qr

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

const imageSize = 256

// Issuer выпускает QR-код миссии с содержимым "<missionID>:<token>".
type Issuer struct{}

func NewIssuer() *Issuer {
	return &Issuer{}
}

// Issue возвращает содержимое QR и PNG в виде data URL.
func (Issuer) Issue(missionID uuid.UUID) (string, string, error) {
	token := make([]byte, 16)
	if _, err := rand.Read(token); err != nil {
		return "", "", fmt.Errorf("qr: не удалось сгенерировать токен: %w", err)
	}
	payload := missionID.String() + ":" + hex.EncodeToString(token)

	png, err := qrcode.Encode(payload, qrcode.Medium, imageSize)
	if err != nil {
		return "", "", fmt.Errorf("qr: не удалось закодировать: %w", err)
	}
	return payload, "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
