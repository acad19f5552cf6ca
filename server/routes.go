package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare()...))
	// form_post response mode
	s.RegisterRouteFunc("POST "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("GET "+RouteHealthz, ChainMiddleware(s.HealthHandler(), s.LoggingMiddleware))
}
