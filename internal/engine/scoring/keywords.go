package scoring

// Default vocabulary for the apartment-industry relevance analyzers.
// Overridable through Config so the batch extraction producer can share
// one canonical contract with the webhook path.

var defaultKeywords = []string{
	"apartment", "apartments", "multifamily", "property management",
	"property manager", "leasing", "lease", "rent", "renters", "resident",
	"residents", "tenant", "tenants", "landlord", "units", "portfolio",
	"housing", "community", "communities", "delinquency", "collections",
	"payments",
}

var defaultCompetitors = []string{
	"AppFolio", "Yardi", "RealPage", "Buildium", "Entrata", "ResMan",
	"MRI Software", "Rent Manager",
}

const defaultBrandTerm = "pay ready"
