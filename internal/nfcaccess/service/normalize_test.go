package service_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfcaccess/server/internal/nfcaccess/service"
)

func TestNormalizeNationalID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "12345678900", want: "12345678900"},
		{in: "123.456.789-00", want: "12345678900"},
		{in: " 123 456 789 00 ", want: "12345678900"},
		{in: "1234567890", wantErr: true},
		{in: "123456789000", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := service.NormalizeNationalID(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, service.ErrValidation)
				var ve *service.ValidationError
				require.True(t, errors.As(err, &ve))
				assert.Equal(t, "cpf", ve.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	got, err := service.NormalizeEmail("  Ana.Souza@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "ana.souza@example.com", got)

	for _, bad := range []string{"", "ana", "ana@", "@example.com", "ana@example", "ana souza@example.com"} {
		_, err := service.NormalizeEmail(bad)
		assert.ErrorIs(t, err, service.ErrValidation, "input %q", bad)
	}
}

func TestNewPairToken_Format(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok, err := service.NewPairToken()
		require.NoError(t, err)
		require.Regexp(t, `^[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}$`, tok)
		seen[tok] = struct{}{}
	}
	assert.Len(t, seen, 100)
}
