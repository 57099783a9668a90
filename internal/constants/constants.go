package constants

import "fmt"

const (
	AppName    = "goviaplay"
	AppVersion = "1.0.0"

	DefaultPort     = "5000"
	DefaultCountry  = "se"
	DefaultLogLevel = "info"
)

// Device identity sent with stream requests.
const (
	StreamDeviceName = "web"
	StreamDeviceType = "pc"
	StreamUserAgent  = "Mozilla/5.0 (Windows NT 10.0; WOW64; rv:47.0) Gecko/20100101 Firefox/47.0"

	// The search endpoint rejects clients without a browser User-Agent.
	SearchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/110.0.0.0 Safari/537.36"
)

// Playback handoff values consumed by the host player.
const (
	ManifestMimeType = "application/dash+xml"
	DRMSystem        = "com.widevine.alpha"

	// The license URL arrives with a challenge placeholder; the host DRM
	// client substitutes its own token at play time.
	LicenseChallengePlaceholder = "{widevineChallenge}"
	LicenseChallengeToken       = "B{SSM}"
	LicenseKeySuffix            = "|||JBlicense"
)

// Vendor API error codes carried in the "name" field of a
// success:false response body.
const (
	ErrMissingSessionCookie        = "MissingSessionCookieError"
	ErrPersistentLogin             = "PersistentLoginError"
	ErrDeviceAuthorizationPending  = "DeviceAuthorizationPendingError"
	ErrDeviceAuthorizationNotFound = "DeviceAuthorizationNotFound"
	ErrParentalGuidancePinNeeded   = "ParentalGuidancePinChallengeNeededError"
	ErrUserNotAuthorized           = "UserNotAuthorizedForContentError"
	ErrPurchaseConfirmation        = "PurchaseConfirmationRequiredError"
	ErrRegionBlocked               = "UserNotAuthorizedRegionBlockedError"
	ErrConcurrentStreams           = "ConcurrentStreamsLimitReachedError"
)

// System flags attached to products.
const (
	FlagIsLive      = "isLive"
	FlagNoBroadcast = "noBroadcast"
)

// Event status label colors (AARRGGBB), rendered by the host as
// [COLOR=...]label[/COLOR].
const (
	ColorLive        = "FF03F12F"
	ColorUpcoming    = "FFF16C00"
	ColorArchive     = "FFFF0EE0"
	ColorNoBroadcast = "FFFF3333"
)

// ErrorMessages maps vendor error codes to text shown by the host in a
// blocking dialog.
var ErrorMessages = map[string]string{
	ErrUserNotAuthorized:         "This content is not included in your subscription.",
	ErrPurchaseConfirmation:      "This content must be purchased or rented before playback.",
	ErrRegionBlocked:             "This content is not available in your region.",
	ErrConcurrentStreams:         "Too many streams are playing on your account right now.",
	ErrParentalGuidancePinNeeded: "A parental guidance PIN is required to play this content.",
	ErrPersistentLogin:           "Your session has expired. Please sign in again.",
}

// DeviceKey returns the content/login device key for a country code.
func DeviceKey(country string) string {
	return fmt.Sprintf("xdk-%s", country)
}

// StreamDeviceKey is the device key used only for stream requests and
// the starred-content endpoint.
func StreamDeviceKey(country string) string {
	return fmt.Sprintf("pcdash-%s", country)
}

// ContentURL returns the hypermedia catalog root for a tld/country pair.
func ContentURL(tld, country string) string {
	return fmt.Sprintf("https://content.viaplay.%s/%s", tld, DeviceKey(country))
}

// LoginAPIURL returns the login API base for a tld.
func LoginAPIURL(tld string) string {
	return fmt.Sprintf("https://login.viaplay.%s/api", tld)
}

// StreamAPIURL returns the stream resolution endpoint. The key segment
// is "byguid" on current backends and "bymediaguid" on older ones.
func StreamAPIURL(tld, key string) string {
	return fmt.Sprintf("https://play.viaplay.%s/api/stream/%s", tld, key)
}

// MyListURL returns the starred-content endpoint.
func MyListURL(tld, country string) string {
	return fmt.Sprintf("https://content.viaplay.%s/%s/myList", tld, StreamDeviceKey(country))
}
