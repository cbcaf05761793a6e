// pkg/validator/validator_test.go
package validator

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

type identityPayload struct {
	NIN   string `binding:"omitempty,nin"`
	BVN   string `binding:"omitempty,bvn"`
	Phone string `binding:"omitempty,ng_phone"`
}

func TestCustomValidators(t *testing.T) {
	Init()

	t.Run("nin", func(t *testing.T) {
		assert.NoError(t, binding.Validator.ValidateStruct(&identityPayload{NIN: "12345678901"}))
		assert.Error(t, binding.Validator.ValidateStruct(&identityPayload{NIN: "1234"}))
		assert.Error(t, binding.Validator.ValidateStruct(&identityPayload{NIN: "1234567890a"}))
	})

	t.Run("bvn", func(t *testing.T) {
		assert.NoError(t, binding.Validator.ValidateStruct(&identityPayload{BVN: "22212345678"}))
		assert.Error(t, binding.Validator.ValidateStruct(&identityPayload{BVN: "222"}))
	})

	t.Run("ng_phone", func(t *testing.T) {
		assert.NoError(t, binding.Validator.ValidateStruct(&identityPayload{Phone: "08031234567"}))
		assert.NoError(t, binding.Validator.ValidateStruct(&identityPayload{Phone: "+2348031234567"}))
		assert.NoError(t, binding.Validator.ValidateStruct(&identityPayload{Phone: "2348031234567"}))
		assert.Error(t, binding.Validator.ValidateStruct(&identityPayload{Phone: "12345"}))
		assert.Error(t, binding.Validator.ValidateStruct(&identityPayload{Phone: "0803123456"}))
	})
}
