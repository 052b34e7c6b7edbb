package network

import (
	"net/http"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// handleQR serves a PNG QR code of the public URL so phones can join.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	s.qrOnce.Do(func() {
		s.qrPNG, s.qrErr = qrcode.Encode(s.cfg.Server.PublicURL, qrcode.Medium, qrSize)
	})
	if s.qrErr != nil {
		s.log.Error("encoding qr code", "url", s.cfg.Server.PublicURL, "err", s.qrErr)
		http.Error(w, "qr code unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(s.qrPNG)
}
