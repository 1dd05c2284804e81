package utils

const (
	OrganizationName                      = "Rentwell"
	CORSLowSecurityAllowedOriginLocalhost = "http://localhost:*"

	TenantAccountType   = "tenant"
	LandlordAccountType = "landlord"
	AgentAccountType    = "agent"
	AdminAccountType    = "admin"

	ProductionEnv = "prod"

	TestEmailSuffix = "testing@rentwell.dev"
)
