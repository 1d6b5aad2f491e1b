package order

import (
	"fmt"
	"strings"

	"roomclean/internal/domain"
)

type template struct {
	title   string
	message string
}

var templates = map[string]map[domain.NotificationKind]template{
	"en": {
		domain.NotifOrderCreated:       {"New order", "Order #%d is waiting for confirmation."},
		domain.NotifOrderConfirmed:     {"Order confirmed", "Order #%d is confirmed and a cleaner has been assigned."},
		domain.NotifAfterPhotoUploaded: {"After photo uploaded", "The after photo for order #%d is ready for review."},
		domain.NotifOrderCompleted:     {"Order completed", "Order #%d has been completed."},
		domain.NotifOrderCancelled:     {"Order cancelled", "Order #%d has been cancelled."},
		domain.NotifOrderRated:         {"New rating", "Order #%d received a rating."},
		domain.NotifTipReceived:        {"Tip received", "Order #%d received a tip."},
		domain.NotifTipSkipped:         {"Tip skipped", "The customer skipped the tip for order #%d."},
		domain.NotifPaymentPaid:        {"Payment received", "Payment for order #%d has been received."},
		domain.NotifPaymentFailed:      {"Payment failed", "Payment for order #%d failed."},
		domain.NotifPaymentSwitched:    {"Payment switched to cash", "Order #%d will be paid in cash on site."},
	},
	"id": {
		domain.NotifOrderCreated:       {"Pesanan baru", "Pesanan #%d menunggu konfirmasi."},
		domain.NotifOrderConfirmed:     {"Pesanan dikonfirmasi", "Pesanan #%d telah dikonfirmasi dan petugas kebersihan sudah ditugaskan."},
		domain.NotifAfterPhotoUploaded: {"Foto sesudah diunggah", "Foto sesudah untuk pesanan #%d siap ditinjau."},
		domain.NotifOrderCompleted:     {"Pesanan selesai", "Pesanan #%d telah selesai."},
		domain.NotifOrderCancelled:     {"Pesanan dibatalkan", "Pesanan #%d telah dibatalkan."},
		domain.NotifOrderRated:         {"Penilaian baru", "Pesanan #%d mendapat penilaian."},
		domain.NotifTipReceived:        {"Tip diterima", "Pesanan #%d mendapat tip."},
		domain.NotifTipSkipped:         {"Tip dilewati", "Pelanggan melewati tip untuk pesanan #%d."},
		domain.NotifPaymentPaid:        {"Pembayaran diterima", "Pembayaran untuk pesanan #%d telah diterima."},
		domain.NotifPaymentFailed:      {"Pembayaran gagal", "Pembayaran untuk pesanan #%d gagal."},
		domain.NotifPaymentSwitched:    {"Pembayaran diubah ke tunai", "Pesanan #%d akan dibayar tunai di lokasi."},
	},
}

// render falls back to English for unknown locales.
func render(locale string, kind domain.NotificationKind, orderID int64) (string, string) {
	set, ok := templates[strings.ToLower(locale)]
	if !ok {
		set = templates["en"]
	}
	t, ok := set[kind]
	if !ok {
		return string(kind), fmt.Sprintf("Order #%d", orderID)
	}
	return t.title, fmt.Sprintf(t.message, orderID)
}

// SupportedLocale reports whether notification text exists for locale.
func SupportedLocale(locale string) bool {
	_, ok := templates[strings.ToLower(locale)]
	return ok
}
