package httpapi

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/imagegate/gateway/internal/models"
	"github.com/imagegate/gateway/internal/repository"
)

const (
	apiKeyPrefix = "igk_"
	saltLen      = 8
	secretLen    = 24
)

// NewAPIKey mints a new tenant API key of the form
// "igk_<16 hex salt>_<48 hex secret>". The salt rides along in the key
// itself so apiKeyAuth can compute the SHA-256 fingerprint — which is
// salted per-tenant — and pass it to GetByFingerprint without a round
// trip to learn which tenant it is looking at.
func NewAPIKey() (raw string, salt, fingerprint, hash []byte, err error) {
	salt = make([]byte, saltLen)
	if _, err = rand.Read(salt); err != nil {
		return "", nil, nil, nil, fmt.Errorf("httpapi: generate salt: %w", err)
	}
	secret := make([]byte, secretLen)
	if _, err = rand.Read(secret); err != nil {
		return "", nil, nil, nil, fmt.Errorf("httpapi: generate secret: %w", err)
	}

	raw = apiKeyPrefix + hex.EncodeToString(salt) + "_" + hex.EncodeToString(secret)
	fingerprint = fingerprintAPIKey(salt, raw)

	hash, err = bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, nil, nil, fmt.Errorf("httpapi: hash api key: %w", err)
	}
	return raw, salt, fingerprint, hash, nil
}

func fingerprintAPIKey(salt []byte, raw string) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(raw))
	return h.Sum(nil)
}

var errMalformedAPIKey = errors.New("httpapi: malformed api key")

// parseAPIKeySalt extracts the embedded salt from a presented key without
// trusting anything beyond its shape.
func parseAPIKeySalt(raw string) ([]byte, error) {
	if !strings.HasPrefix(raw, apiKeyPrefix) {
		return nil, errMalformedAPIKey
	}
	rest := raw[len(apiKeyPrefix):]
	underscore := strings.IndexByte(rest, '_')
	if underscore != saltLen*2 {
		return nil, errMalformedAPIKey
	}
	salt, err := hex.DecodeString(rest[:underscore])
	if err != nil {
		return nil, errMalformedAPIKey
	}
	return salt, nil
}

const tenantLocalsKey = "tenant"

// apiKeyAuth validates the bearer API key against the tenant store: parse
// the embedded salt, compute the fingerprint for an O(1) lookup, then
// confirm with a bcrypt comparison so a fingerprint collision alone can
// never authenticate.
func apiKeyAuth(tenants repository.TenantRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		const prefix = "Bearer "
		raw := c.Get("X-API-Key")
		if raw == "" {
			header := c.Get(fiber.HeaderAuthorization)
			if !strings.HasPrefix(header, prefix) {
				return fiber.NewError(fiber.StatusUnauthorized, "missing or malformed Authorization header")
			}
			raw = strings.TrimSpace(header[len(prefix):])
		}

		salt, err := parseAPIKeySalt(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid api key")
		}
		fingerprint := fingerprintAPIKey(salt, raw)

		tenant, err := tenants.GetByFingerprint(c.UserContext(), fingerprint)
		if err != nil {
			var notFound *repository.ErrNotFound
			if errors.As(err, &notFound) {
				return fiber.NewError(fiber.StatusUnauthorized, "invalid api key")
			}
			return fmt.Errorf("httpapi: tenant lookup: %w", err)
		}
		if !tenant.Enabled {
			return fiber.NewError(fiber.StatusUnauthorized, "tenant disabled")
		}
		if err := bcrypt.CompareHashAndPassword(tenant.ApiKeyHash, []byte(raw)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid api key")
		}

		c.Locals(tenantLocalsKey, tenant)
		return c.Next()
	}
}

func tenantFromContext(c *fiber.Ctx) *models.Tenant {
	t, _ := c.Locals(tenantLocalsKey).(*models.Tenant)
	return t
}
