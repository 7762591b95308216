package server

const (
	RouteAuthRegister = "/api/auth/register"
	RouteAuthLogin    = "/api/auth/login"

	RouteWhatsappConnect    = "/api/whatsapp/connect"
	RouteWhatsappQR         = "/api/whatsapp/qr"
	RouteWhatsappStatus     = "/api/whatsapp/status"
	RouteWhatsappDisconnect = "/api/whatsapp/disconnect"

	RouteMessages         = "/api/messages"
	RouteMessagesDownload = "/api/messages/download/{id}"
	RouteMessagesSearch   = "/api/messages/search"
	RouteMessagesAnalyze  = "/api/messages/analyze"
)
