package server

func (s *Server) initRoutes() {
	// AUTH
	s.RegisterRouteFunc("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))

	// SESSION LIFECYCLE
	s.RegisterRouteFunc("POST "+RouteWhatsappConnect, ChainMiddleware(s.ConnectHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteWhatsappQR, ChainMiddleware(s.QRHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteWhatsappStatus, ChainMiddleware(s.StatusHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteWhatsappDisconnect, ChainMiddleware(s.DisconnectHandler(), s.ProtectedMiddleware()...))

	// MESSAGES
	s.RegisterRouteFunc("GET "+RouteMessages, ChainMiddleware(s.MessagesListHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteMessagesDownload, ChainMiddleware(s.MessageDownloadHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteMessagesSearch, ChainMiddleware(s.MessagesSearchHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteMessagesAnalyze, ChainMiddleware(s.MessagesAnalyzeHandler(), s.ProtectedMiddleware()...))
}
