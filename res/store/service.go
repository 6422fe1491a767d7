package store

// ServiceType represents the type of pet-sitting service
type ServiceType string

const (
	ServiceTypeWalk      ServiceType = "walk"      // Dog walking
	ServiceTypeDropIn    ServiceType = "drop_in"   // Drop-in visit (feeding, play, litter)
	ServiceTypeOvernight ServiceType = "overnight" // Overnight sitting at the client's home
	ServiceTypeDaycare   ServiceType = "daycare"   // Daytime care at the sitter's home
)
