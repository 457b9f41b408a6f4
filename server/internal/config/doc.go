// Package config loads the trialdash server configuration from a YAML file.
//
// Config fields:
//   - LogLevel               debug | info | warn | error (default info)
//   - Server.HTTPPort        port for the REST API, metrics and WebSocket hub (default 8000)
//   - Server.Auth            "apikey" or "none"; guards dataset uploads
//   - Server.CORS            origins allowed to call the API from a browser
//   - Server.Upload.MaxBytes largest accepted upload (default 10 MiB)
//   - Server.Stream.Interval WebSocket broadcast interval (default 5s)
//   - Data                   optional dataset file (watched) or URL (polled)
//   - Alerts                 bottleneck alert rules and webhook targets
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, onChange) reloads the file on change via fsnotify.
package config
