package config

type SecurityLevel int

const (
	SecurityPublic  SecurityLevel = iota // No authentication
	SecuritySession                      // Session token required
)

// EndpointSecurityConfig maps HTTP route names and gRPC full method names to
// their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Probes
	"Healthz": SecurityPublic,
	"Metrics": SecurityPublic,

	// gRPC health
	"/grpc.health.v1.Health/Check": SecurityPublic,
	"/grpc.health.v1.Health/List":  SecurityPublic,

	// gRPC bookings
	"/toolshare.v1.BookingService/Quote":             SecurityPublic,
	"/toolshare.v1.BookingService/CreateBooking":     SecuritySession,
	"/toolshare.v1.BookingService/TransitionBooking": SecuritySession,
	"/toolshare.v1.BookingService/GetBooking":        SecuritySession,
	"/toolshare.v1.BookingService/ListBookings":      SecuritySession,

	// Auth / users - Public
	"Login":    SecurityPublic,
	"Register": SecurityPublic,

	// Browsing - Public
	"SearchTools":     SecurityPublic,
	"ToolFacets":      SecurityPublic,
	"GetTool":         SecurityPublic,
	"GetAvailability": SecurityPublic,
	"GetQuote":        SecurityPublic,

	// Users - Session Protected
	"GetMe": SecuritySession,

	// Tools - Session Protected
	"AddListing":       SecuritySession,
	"SetAvailability":  SecuritySession,
	"ListToolBookings": SecuritySession,

	// Bookings - Session Protected
	"CreateBooking":     SecuritySession,
	"ListBookings":      SecuritySession,
	"GetBooking":        SecuritySession,
	"TransitionBooking": SecuritySession,

	// Swaps - Session Protected
	"ProposeSwap":   SecuritySession,
	"ListSwaps":     SecuritySession,
	"GetSwap":       SecuritySession,
	"RespondToSwap": SecuritySession,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecuritySession
}
