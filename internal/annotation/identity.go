package annotation

import (
	"crypto/sha1" //nolint:gosec // name-based UUIDs are defined over SHA-1
	"fmt"

	"github.com/google/uuid"
	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/logger"
)

// HashFunc digests the identity name. It must return at least 16 bytes.
type HashFunc func(data []byte) ([]byte, error)

// SHA1 is the default HashFunc.
func SHA1(data []byte) ([]byte, error) {
	sum := sha1.Sum(data) //nolint:gosec // see import
	return sum[:], nil
}

// Resolver derives annotation ids from (inspection id, ordinal).
type Resolver struct {
	hash HashFunc
	log  logger.Logger // nil means the global logger
}

// NewResolver returns a Resolver using hash, or SHA1 when hash is nil.
func NewResolver(hash HashFunc) *Resolver {
	if hash == nil {
		hash = SHA1
	}
	return &Resolver{hash: hash}
}

// WithLogger sets the logger used for fallback warnings.
func (r *Resolver) WithLogger(l logger.Logger) *Resolver {
	r.log = l
	return r
}

func (r *Resolver) warnLogger() logger.Logger {
	if r.log != nil {
		return r.log
	}
	return logger.Global().Module("annotation").Module("identity")
}

var defaultResolver = NewResolver(SHA1)

// ResolveID derives the id of the box at ordinal within inspectionID.
func ResolveID(inspectionID string, ordinal int) string {
	return defaultResolver.Resolve(inspectionID, ordinal).String()
}

// IdentityName is the hashed input for a box identity.
func IdentityName(inspectionID string, ordinal int) string {
	return fmt.Sprintf("%s-box-%d", inspectionID, ordinal)
}

// Resolve returns a version 5 style UUID over IdentityName. If hashing
// fails the resolver logs a warning and returns a random UUID, so the id is
// no longer stable across saves.
func (r *Resolver) Resolve(inspectionID string, ordinal int) uuid.UUID {
	name := IdentityName(inspectionID, ordinal)

	sum, err := r.hash([]byte(name))
	if err == nil && len(sum) < 16 {
		err = errors.Newf("digest too short: %d bytes", len(sum)).Category(errors.CategorySystem).Build()
	}
	if err != nil {
		r.warnLogger().Warn("identity hash failed, using random id",
			logger.String("inspection_id", inspectionID),
			logger.Int("ordinal", ordinal),
			logger.Error(err))
		return uuid.New()
	}

	var id uuid.UUID
	copy(id[:], sum[:16])
	id[6] = id[6]&0x0f | 0x50
	id[8] = id[8]&0x3f | 0x80
	return id
}
