package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// session token on outbound requests.
const AccessTokenHeaderName = "access_token"

// ForwardedForHeaderName carries the caller address when the server sits
// behind a proxy.
const ForwardedForHeaderName = "x-forwarded-for"
