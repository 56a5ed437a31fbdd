package model

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateQuestions checks every decoded question. The first failure is
// returned together with its index.
func ValidateQuestions(qs []Question) (int, error) {
	v := validatorInstance()
	for i, q := range qs {
		if err := v.Struct(q); err != nil {
			return i, err
		}
	}
	return -1, nil
}

// ValidateResults checks every decoded stats entry.
func ValidateResults(rs []SessionResult) (int, error) {
	v := validatorInstance()
	for i, r := range rs {
		if err := v.Struct(r); err != nil {
			return i, err
		}
	}
	return -1, nil
}
