package middleware

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/pushpullrun/pkg"
)

func LogRequest(trustedProxies pkg.TrustedProxies) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fields := log.Fields{
				"method": r.Method,
				"route":  routeName(r),
				"path":   r.URL.Path,
				"ua":     r.Header.Get("User-Agent"),
			}
			if ip, err := pkg.ReadUserIP(r, trustedProxies); err == nil {
				fields["ip"] = ip
			}
			log.WithFields(fields).Trace(" ====> request")
			next.ServeHTTP(w, r)
		})
	}
}
