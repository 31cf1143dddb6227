package config

import (
	"fmt"
	"net/url"
	"strings"
)

// mongoURLFromEnv assembles the document-store connection string. A full
// MONGO_URL wins; otherwise the URL is built from host/port/credential
// parts. Retryable writes stay off because upserts are already idempotent
// by natural key.
func mongoURLFromEnv() string {
	if direct := strings.TrimSpace(getEnv("MONGO_URL", "")); direct != "" {
		return direct
	}

	host := getEnv("MONGO_HOST", "localhost")
	port := getEnv("MONGO_PORT", "27017")
	user := strings.TrimSpace(getEnv("MONGO_USER", ""))
	password := strings.TrimSpace(getEnv("MONGO_PASSWORD", ""))

	auth := ""
	if user != "" {
		auth = url.QueryEscape(user)
		if password != "" {
			auth += ":" + url.QueryEscape(password)
		}
		auth += "@"
	}

	options := []string{"retrywrites=false", "maxIdleTimeMS=120000"}
	if strings.EqualFold(getEnv("MONGO_SSL", "false"), "true") {
		options = append(options, "ssl=true")
	}
	if rs := strings.TrimSpace(getEnv("MONGO_REPLICA_SET", "")); rs != "" {
		options = append(options, "replicaSet="+url.QueryEscape(rs))
	}
	if src := strings.TrimSpace(getEnv("MONGO_AUTH_SOURCE", "")); src != "" {
		options = append(options, "authSource="+url.QueryEscape(src))
	}
	if app := strings.TrimSpace(getEnv("MONGO_APP_NAME", "")); app != "" {
		options = append(options, "appName="+url.QueryEscape(app))
	}

	return fmt.Sprintf("mongodb://%s%s:%s/?%s", auth, host, port, strings.Join(options, "&"))
}
