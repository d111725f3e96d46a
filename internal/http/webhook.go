package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/twilio/twilio-go/twiml"

	applog "masraf/internal/log"
	"masraf/internal/services"
)

const (
	// maxMediaItems is the most attachments one inbound message can carry.
	maxMediaItems = 10
	maxFormBytes  = 1 << 20

	HeaderSignature = "X-Twilio-Signature"

	MsgRateLimited = "Çok fazla mesaj gönderdin, lütfen biraz bekleyip tekrar dene."
)

// handleWebhook receives an inbound message and answers with TwiML.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentWebhook)

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		logger.WarnContext(r.Context(), "Invalid webhook form", applog.FieldError, err)
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	if s.validator != nil && !s.validSignature(r) {
		logger.WarnContext(r.Context(), "Webhook signature rejected",
			applog.FieldClientIP, ExtractClientIP(r))
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	messageSID := strings.TrimSpace(r.PostForm.Get("MessageSid"))
	if messageSID != "" {
		if reply, ok := s.replies.Get(messageSID); ok {
			logger.InfoContext(r.Context(), "Redelivered message answered from cache", "message_sid", messageSID)
			s.writeTwiML(w, r, reply)
			return
		}
	}

	in := ParseInbound(r.PostForm)
	key := in.Sender
	if key == "" {
		key = ExtractClientIP(r)
	}
	if s.limiter != nil && !s.limiter.Allow(key) {
		logger.WarnContext(r.Context(), "Sender rate limited", applog.FieldSender, in.Sender)
		s.writeTwiML(w, r, MsgRateLimited)
		return
	}

	reply := s.handler.Handle(r.Context(), in)
	if messageSID != "" {
		s.replies.Set(messageSID, reply)
	}
	s.writeTwiML(w, r, reply)
}

func (s *Server) validSignature(r *http.Request) bool {
	sig := r.Header.Get(HeaderSignature)
	if sig == "" {
		return false
	}
	params := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return s.validator.Validate(requestURL(r, s.publicURL), params, sig)
}

func (s *Server) writeTwiML(w http.ResponseWriter, r *http.Request, reply string) {
	body, err := twiml.Messages([]twiml.Element{&twiml.MessagingMessage{Body: reply}})
	if err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentWebhook).
			ErrorContext(r.Context(), "Render TwiML failed", applog.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// ParseInbound reads the provider form fields. Media pairs beyond NumMedia
// are ignored; a missing or invalid count means no media.
func ParseInbound(form url.Values) services.Inbound {
	in := services.Inbound{
		Sender:     strings.TrimSpace(form.Get("From")),
		Body:       form.Get("Body"),
		AccountSID: strings.TrimSpace(form.Get("AccountSid")),
	}
	n, err := strconv.Atoi(strings.TrimSpace(form.Get("NumMedia")))
	if err != nil || n < 0 {
		n = 0
	}
	n = min(n, maxMediaItems)
	for i := 0; i < n; i++ {
		idx := strconv.Itoa(i)
		in.Media = append(in.Media, services.MediaItem{
			URL:         strings.TrimSpace(form.Get("MediaUrl" + idx)),
			ContentType: strings.TrimSpace(form.Get("MediaContentType" + idx)),
		})
	}
	return in
}
