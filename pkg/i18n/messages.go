// Package i18n holds the user-facing strings shown by the storefront apps
// and picks a printer from the request's Accept-Language header.
package i18n

import (
	"context"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	CartAdded          = "cart.added"
	CartUpdated        = "cart.updated"
	CartRemoved        = "cart.removed"
	CartNotVerified    = "cart.not_verified"
	CartVIPOnly        = "cart.vip_only"
	CartMaxExceeded    = "cart.max_exceeded"
	CartOutOfStock     = "cart.out_of_stock"
	CartConflict       = "cart.conflict"
	CartGenericFailure = "cart.generic_failure"

	NotifySent    = "notify.sent"
	NotifyPartial = "notify.partial"

	OrderStatusChanged = "order.status_changed"
)

var supported = []language.Tag{language.English, language.French}

var matcher = language.NewMatcher(supported)

func init() {
	set := func(tag language.Tag, entries map[string]string) {
		for key, msg := range entries {
			_ = message.SetString(tag, key, msg)
		}
	}

	set(language.English, map[string]string{
		CartAdded:          "Added to your cart",
		CartUpdated:        "Cart updated",
		CartRemoved:        "Removed from your cart",
		CartNotVerified:    "Please verify your account to add items to your cart",
		CartVIPOnly:        "This product is reserved for VIP members",
		CartMaxExceeded:    "You can buy at most %d of this product",
		CartOutOfStock:     "Only %d left in stock",
		CartConflict:       "Your cart changed on another device, please try again",
		CartGenericFailure: "Something went wrong, please try again",
		NotifySent:         "Notification sent to %d recipient(s)",
		NotifyPartial:      "Notification sent to %d recipient(s), %d failed",
		OrderStatusChanged: "Your order %s is now %s",
	})

	set(language.French, map[string]string{
		CartAdded:          "Ajouté à votre panier",
		CartUpdated:        "Panier mis à jour",
		CartRemoved:        "Retiré de votre panier",
		CartNotVerified:    "Veuillez vérifier votre compte pour ajouter des articles au panier",
		CartVIPOnly:        "Ce produit est réservé aux membres VIP",
		CartMaxExceeded:    "Vous pouvez acheter au maximum %d exemplaires de ce produit",
		CartOutOfStock:     "Plus que %d en stock",
		CartConflict:       "Votre panier a été modifié sur un autre appareil, veuillez réessayer",
		CartGenericFailure: "Une erreur est survenue, veuillez réessayer",
		NotifySent:         "Notification envoyée à %d destinataire(s)",
		NotifyPartial:      "Notification envoyée à %d destinataire(s), %d en échec",
		OrderStatusChanged: "Votre commande %s est maintenant %s",
	})
}

// Printer returns a printer for the best supported match of an
// Accept-Language header value. English is the fallback.
func Printer(acceptLanguage string) *message.Printer {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return message.NewPrinter(language.English)
	}
	_, idx, _ := matcher.Match(tags...)
	return message.NewPrinter(supported[idx])
}

func Sprintf(acceptLanguage, key string, args ...any) string {
	return Printer(acceptLanguage).Sprintf(key, args...)
}

type ctxKey struct{}

// WithLanguage stores the caller's Accept-Language value in ctx.
func WithLanguage(ctx context.Context, acceptLanguage string) context.Context {
	return context.WithValue(ctx, ctxKey{}, acceptLanguage)
}

func FromContext(ctx context.Context) *message.Printer {
	v, _ := ctx.Value(ctxKey{}).(string)
	return Printer(v)
}
