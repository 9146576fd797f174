// Package authsdk is the Go client for the identity service and the home of
// the RFC 6749 error type shared by server and client.
//
// A Client speaks the public OAuth2 surface:
//
//	c := authsdk.NewClient("https://idp.example.com")
//	pkce, _ := authsdk.GeneratePKCEChallenge()
//	code, _, err := c.Login(ctx, authsdk.LoginRequest{
//		ClientID:    "app1",
//		RedirectURI: "https://app.example.com/cb",
//		LoginID:     "u1@example.com",
//		Password:    "P@ss1",
//		Scope:       "openid offline_access",
//		PKCE:        pkce,
//	})
//	tokens, err := c.ExchangeCode(ctx, "app1", "secret", code, "https://app.example.com/cb", pkce.Verifier)
//
// An AdminClient calls the API-key protected endpoints:
//
//	admin := authsdk.NewAdminClient("https://idp.example.com", apiKey, tenantID)
//	roles, err := admin.UserRolesForApplication(ctx, userID, "app1")
package authsdk
