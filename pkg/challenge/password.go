package challenge

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/flagforge/ctfmanager/pkg/log"
)

// DerivePassword computes password(actor, instanceID, purpose) per spec.md
// §4.E: hex(HMAC-SHA256(key, actor || instanceID || purpose))[:16]. When
// secretKey is empty, fallback is used instead and a warning is logged, since
// running without a process-wide HMAC secret is an operational hazard.
func DerivePassword(secretKey []byte, fallback []byte, actor, instanceID, purpose string) string {
	key := secretKey
	if len(key) == 0 {
		log.Logger.Warn().Msg("HMAC_SECRET_KEY is unset; deriving instance passwords from challenge material is insecure")
		key = fallback
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(actor))
	mac.Write([]byte(instanceID))
	mac.Write([]byte(purpose))
	sum := hex.EncodeToString(mac.Sum(nil))
	return sum[:16]
}
