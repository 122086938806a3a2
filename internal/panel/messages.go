package panel

import "strings"

// Messages is the user-facing text of the panel in one language.
//
// Entries ending in "F" are format strings taking the error text.
type Messages struct {
	Loading string

	CredentialValid   string
	CredentialInvalid string
	StatusFailedF     string

	Refreshed      string
	RefreshBusy    string
	RefreshFailedF string

	CredentialMissing string
	InfoFailedF       string

	ChooseMethod   string
	GeneratingQR   string
	ScanPrompt     string
	LoginSucceeded string
	QRFailedF      string
	QRLoadFailed   string
	ScanTimedOut   string
}

var zh = Messages{
	Loading: "加载中...",

	CredentialValid:   "凭证有效",
	CredentialInvalid: "凭证无效或已过期",
	StatusFailedF:     "检查凭证状态失败: %s",

	Refreshed:      "刷新成功",
	RefreshBusy:    "正在刷新凭证，请稍候",
	RefreshFailedF: "刷新凭证失败: %s",

	CredentialMissing: "未找到凭证文件，请先登录生成凭证",
	InfoFailedF:       "获取凭证信息失败: %s",

	ChooseMethod:   "请选择 QQ 或微信登录",
	GeneratingQR:   "生成二维码中...",
	ScanPrompt:     "请使用手机扫描二维码登录",
	LoginSucceeded: "登录成功！凭证已保存。",
	QRFailedF:      "生成二维码失败: %s",
	QRLoadFailed:   "二维码加载失败，请重试",
	ScanTimedOut:   "等待扫码超时，请重新生成二维码",
}

var en = Messages{
	Loading: "Loading...",

	CredentialValid:   "Credential is valid",
	CredentialInvalid: "Credential is invalid or expired",
	StatusFailedF:     "Failed to check credential status: %s",

	Refreshed:      "Refreshed",
	RefreshBusy:    "A refresh is already in progress",
	RefreshFailedF: "Failed to refresh credential: %s",

	CredentialMissing: "credential file not found, please log in first",
	InfoFailedF:       "Failed to get credential info: %s",

	ChooseMethod:   "Choose QQ or WeChat to log in",
	GeneratingQR:   "Generating QR code...",
	ScanPrompt:     "Scan the QR code with your phone to log in",
	LoginSucceeded: "Logged in! Credential saved.",
	QRFailedF:      "Failed to generate QR code: %s",
	QRLoadFailed:   "QR code failed to load, please retry",
	ScanTimedOut:   "Timed out waiting for a scan, generate a new QR code",
}

// Catalog returns the messages for locale ("zh" or "en", region suffixes ignored). Unknown locales get Chinese.
func Catalog(locale string) Messages {
	lang, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(locale)), "-")
	lang, _, _ = strings.Cut(lang, "_")
	if lang == "en" {
		return en
	}
	return zh
}
