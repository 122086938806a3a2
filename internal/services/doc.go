// Package services implements the HTTP client for the QQ Music plugin router.
//
// # Plugin Service
//
// [PluginService] wraps the four endpoints the control panel needs:
//   - GET  /get_qrcode/{qq|wx} : base64 QR image, possibly quoted
//   - GET  /credential/status  : {"valid": bool}
//   - POST /credential/refresh : {"message": "..."} or {"detail": "..."}
//   - GET  /credential/info    : arbitrary JSON object, 404 without a credential file
//
// Raw access is available through [PluginService.Get] and [PluginService.Post], which return an [APIResponse] with
// the body, headers and decoded JSON (when the body parses).
//
// Requests optionally pass through a token bucket ([NewLimiter]) so a fast poll interval or a busy panel cannot
// flood the plugin.
//
// # Error Handling
//
// Errors use the sentinels from the shared package:
//   - [shared.ErrServiceUnavailable] : transport failure (connection refused, timeout, canceled)
//   - [shared.ErrAPIRequest] : non-2xx status, as an [HTTPError]
//   - [shared.ErrCredentialNotFound] : 404 from the credential endpoints
//   - [shared.ErrMalformedResponse] : a 2xx body that does not decode
//
// [HTTPError.Error] prefers the FastAPI "detail" field and falls back to "HTTP error! status: <code>".
package services
