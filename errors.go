package twincache

import "github.com/cockroachdb/errors"

// NoDataFromLoaderError is returned when a Loader produced no payload
// (nil result or an error) and no usable cached fallback existed.
type NoDataFromLoaderError struct {
	ProviderKey string
	cause       error
}

func (e *NoDataFromLoaderError) Error() string {
	return errors.Newf("twincache: no data from loader for provider %q", e.ProviderKey).Error()
}

func (e *NoDataFromLoaderError) Unwrap() error { return e.cause }

func newNoDataFromLoaderError(providerKey string, cause error) error {
	return errors.WithStack(&NoDataFromLoaderError{ProviderKey: providerKey, cause: cause})
}

// MigrationFailedError is returned when a startup migration step aborts.
type MigrationFailedError struct {
	Version int
	cause   error
}

func (e *MigrationFailedError) Error() string {
	return errors.Newf("twincache: migration to version %d failed", e.Version).Error()
}

func (e *MigrationFailedError) Unwrap() error { return e.cause }

func newMigrationFailedError(version int, cause error) error {
	return errors.WithStack(&MigrationFailedError{Version: version, cause: cause})
}

// InvalidConfigError is returned when required configuration is missing
// or malformed.
type InvalidConfigError struct {
	Field string
}

func (e *InvalidConfigError) Error() string {
	return errors.Newf("twincache: invalid config: %s", e.Field).Error()
}

func newInvalidConfigError(field string) error {
	return errors.WithStack(&InvalidConfigError{Field: field})
}

// KeySeparatorCollisionError is returned when a user-supplied key segment
// contains a reserved flattening separator. Such keys are always rejected;
// there is no escaping mode.
type KeySeparatorCollisionError struct {
	Key Key
}

func (e *KeySeparatorCollisionError) Error() string {
	return errors.Newf("twincache: key %+v collides with the reserved separator", e.Key).Error()
}

func newKeySeparatorCollisionError(k Key) error {
	return errors.WithStack(&KeySeparatorCollisionError{Key: k})
}
