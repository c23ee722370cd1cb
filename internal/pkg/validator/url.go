package validator

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

var blockedHosts = []string{
	"localhost", "127.0.0.1", "0.0.0.0", "::1",
	"169.254.169.254", // cloud metadata endpoints
	"metadata.google.internal",
}

// ValidateTargetURL checks that a subscription target is a deliverable
// public HTTP(S) endpoint before we commit to posting notifications at it.
func ValidateTargetURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("invalid url")
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("target url must use http or https")
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errors.New("target url missing host")
	}

	for _, blocked := range blockedHosts {
		if host == blocked {
			return errors.New("target url host not allowed")
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
			return errors.New("target url host not allowed")
		}
	}

	return nil
}
