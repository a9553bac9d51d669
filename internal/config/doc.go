// Package config handles configuration loading for dushu-server.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion, preceded by a .env file in the working directory (loaded via
// godotenv when present). A missing config file is not an error: built-in
// defaults plus environment variables form a complete configuration, which
// matches how small deployments run the server.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from the --config flag
//  2. Path from the DUSHU_CONFIG environment variable
//  3. ~/.config/dushu/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  session_secret: "${SECRET_KEY}"
//
// Unset variables expand to empty strings. Well-known variables
// (APP_PASSWORD, SECRET_KEY, GOOGLE_VISION_API_KEY, GOOGLE_CLIENT_ID,
// GOOGLE_CLIENT_SECRET, TS_AUTHKEY, PORT) also fill their fields directly
// when the YAML leaves them empty.
//
// # Configuration Sections
//
//	server:
//	  http_addr: ":5000"          # PORT env wins when set
//
//	log:
//	  level: "info"               # debug, info, warn, error
//	  format: "text"              # text, json
//
//	auth:
//	  mode: "password"            # password or google
//	  session_secret: "${SECRET_KEY}"
//	  session_ttl: "720h"
//	  password: "${APP_PASSWORD}"
//	  password_bcrypt: ""         # preferred over plaintext
//	  google:
//	    client_id: "${GOOGLE_CLIENT_ID}"
//	    client_secret: "${GOOGLE_CLIENT_SECRET}"
//	    redirect_url: ""
//	    allowed_emails: []
//
//	vision:
//	  api_key: "${GOOGLE_VISION_API_KEY}"
//	  timeout: "30s"
//
//	dict:
//	  path: ""                    # default: <data dir>/cedict_ts.u8
//
//	store:
//	  db_path: ""                 # default: <data dir>/dushu.db
//
//	tailscale:
//	  enabled: false
//	  hostname: "dushu"
//	  auth_key: "${TS_AUTHKEY}"
//
// # Validation
//
// Load() enforces the fatal startup conditions: the Vision API key must be
// set, password mode needs a password or bcrypt hash, and google mode needs
// client credentials plus a stable session secret.
package config
