package pkcs11_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DiamondKeySecurity/pkcs11"
)

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := pkcs11.NewNotFoundError(3, 0)
		assert.Equal(t, "pkcs11: no descriptor for class 0x00000003 key type 0x00000000", err.Error())
		assert.Equal(t, uint64(3), err.Class())
		assert.Equal(t, uint64(0), err.KeyType())
	})

	t.Run("Is", func(t *testing.T) {
		err := pkcs11.NewNotFoundError(2, 3)
		assert.True(t, errors.Is(err, pkcs11.ErrNotFound))
		assert.False(t, errors.Is(err, pkcs11.ErrUnknownAttribute))
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := pkcs11.NewNotFoundError(2, 3)
		assert.True(t, pkcs11.IsNotFound(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, pkcs11.IsNotFound(wrapped))

		// Sentinel error
		assert.True(t, pkcs11.IsNotFound(pkcs11.ErrNotFound))

		// Non-matching error
		assert.False(t, pkcs11.IsNotFound(errors.New("other error")))
		assert.False(t, pkcs11.IsNotFound(nil))
	})
}

func TestAttributeError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := pkcs11.NewAttributeError(0x120)
		assert.Equal(t, "pkcs11: attribute 0x00000120 not in descriptor", err.Error())
		assert.Equal(t, uint64(0x120), err.Type())
	})

	t.Run("IsUnknownAttribute", func(t *testing.T) {
		err := pkcs11.NewAttributeError(0x120)
		assert.True(t, pkcs11.IsUnknownAttribute(err))
		assert.True(t, pkcs11.IsUnknownAttribute(fmt.Errorf("wrapper: %w", err)))
		assert.True(t, pkcs11.IsUnknownAttribute(pkcs11.ErrUnknownAttribute))
		assert.False(t, pkcs11.IsUnknownAttribute(pkcs11.ErrNotFound))
		assert.False(t, pkcs11.IsUnknownAttribute(nil))
	})
}
