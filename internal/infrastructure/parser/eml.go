package parser

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrNoHTMLPart is returned when a message carries no text/html body.
var ErrNoHTMLPart = errors.New("message has no text/html part")

// htmlFromMessage returns the first text/html part of an RFC 822 message,
// decoded to UTF-8.
func htmlFromMessage(r io.Reader) ([]byte, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}
	return findHTML(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
}

func findHTML(contentType, encoding string, body io.Reader) ([]byte, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("parse content type %q: %w", contentType, err)
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		mr := multipart.NewReader(body, params["boundary"])
		for {
			part, err := mr.NextRawPart()
			if errors.Is(err, io.EOF) {
				return nil, ErrNoHTMLPart
			}
			if err != nil {
				return nil, fmt.Errorf("read part: %w", err)
			}
			html, err := findHTML(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
			if errors.Is(err, ErrNoHTMLPart) {
				continue
			}
			return html, err
		}
	case mediaType == "text/html":
		decoded, err := io.ReadAll(transferDecoder(encoding, body))
		if err != nil {
			return nil, fmt.Errorf("decode html part: %w", err)
		}
		utf8Reader, err := charset.NewReaderLabel(charsetOrDefault(params["charset"]), bytes.NewReader(decoded))
		if err != nil {
			return decoded, nil
		}
		return io.ReadAll(utf8Reader)
	default:
		return nil, ErrNoHTMLPart
	}
}

func transferDecoder(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

func charsetOrDefault(label string) string {
	if label == "" {
		return "utf-8"
	}
	return label
}
