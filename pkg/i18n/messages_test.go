package i18n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSprintf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		key    string
		args   []any
		want   string
	}{
		{name: "english default", header: "", key: CartMaxExceeded, args: []any{2}, want: "You can buy at most 2 of this product"},
		{name: "french", header: "fr-FR,fr;q=0.9", key: CartOutOfStock, args: []any{3}, want: "Plus que 3 en stock"},
		{name: "unsupported falls back", header: "de-DE", key: CartVIPOnly, want: "This product is reserved for VIP members"},
		{name: "garbage header", header: ";;;", key: CartGenericFailure, want: "Something went wrong, please try again"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Sprintf(tt.header, tt.key, tt.args...))
		})
	}
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	ctx := WithLanguage(context.Background(), "fr")
	assert.Equal(t, "Panier mis à jour", FromContext(ctx).Sprintf(CartUpdated))
	assert.Equal(t, "Cart updated", FromContext(context.Background()).Sprintf(CartUpdated))
}
