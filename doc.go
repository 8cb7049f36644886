// Package oauth implements the login and token lifecycle for social sign-in
// with Google, Kakao, and Naver.
//
// The root package wires the pieces together: a Service that owns one login
// Flow per provider, a JWT codec for access/refresh/signup tokens, a
// store-backed refresh token registry with rotation and mass revocation, a
// security gate with failure counting and lockout, and an http.Handler
// exposing the whole thing.
//
// Quick start:
//
//	store := memory.New()
//	svc, err := oauth.NewService(&oauth.Config{
//		Secret: os.Getenv("JWT_SECRET"),
//		Google: oauth.ProviderCredentials{
//			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
//			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
//			RedirectURL:  "https://example.com/google/callback",
//		},
//	}, store, userStore)
//	if err != nil {
//		log.Fatal(err)
//	}
//	handler, err := oauth.NewHandler(svc, oauth.RateLimitConfig{Rate: 10, Burst: 20}, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", handler)
//
// Persistence of user records stays behind the UserStore interface; the
// package only resolves provider identities to user IDs and creates records
// on first signup.
package oauth
