package validate_test

import (
	"testing"

	"github.com/bibliotek/biblioteca-service/pkg/validate"
	"github.com/stretchr/testify/require"
)

func TestValidCedula(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		cedula string
		want   bool
	}{
		{name: "ok", cedula: "1710034065", want: true},
		{name: "ok leading zero province", cedula: "0102030400", want: true},
		{name: "ok province 22", cedula: "2200000012", want: true},
		{name: "bad check digit", cedula: "1710034066", want: false},
		{name: "province out of range", cedula: "2510034065", want: false},
		{name: "third digit >= 6", cedula: "1760034065", want: false},
		{name: "too short", cedula: "171003406", want: false},
		{name: "too long", cedula: "17100340655", want: false},
		{name: "non digits", cedula: "17100340ab", want: false},
		{name: "empty", cedula: "", want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, validate.ValidCedula(tt.cedula))
		})
	}
}

func TestCustomValidator_CedulaTag(t *testing.T) {
	t.Parallel()
	type payload struct {
		NationalID string `validate:"required,cedula"`
	}
	cv := validate.NewCustomValidator()

	require.NoError(t, cv.Validate(payload{NationalID: "0905123451"}))
	require.Error(t, cv.Validate(payload{NationalID: "0905123450"}))
	require.Error(t, cv.Validate(payload{}))
}
