package dgn

// OpenOptions configures opening an existing design file.
type OpenOptions struct {
	// Update opens the file for writing, enabling feature and layer
	// mutation. Default is read-only.
	Update bool

	// Tolerance is the endpoint-contiguity tolerance in master units used
	// when chaining curve segments. Zero or negative selects
	// DefaultTolerance.
	Tolerance float64
}

// DefaultOpenOptions returns read-only options with the default tolerance.
func DefaultOpenOptions() OpenOptions {
	return OpenOptions{Update: false, Tolerance: DefaultTolerance}
}

// CreateOptions configures creation of a new design file.
//
// The string key/value form accepted by PreCreate maps onto these fields;
// unrecognized keys are ignored:
//
//	"SEED"          -> Seed
//	"APPLICATION"   -> Application
//	"MASTER_UNIT"   -> MasterUnit
//	"DEFAULT_MODEL" -> DefaultModel
type CreateOptions struct {
	// Seed is the path of an existing design file whose models, elements,
	// and header seed the new file. Empty selects the built-in empty
	// template with a single model.
	Seed string

	// Application identifies the creating application in the file header.
	Application string

	// MasterUnit is the master unit label written to the header, for
	// example "m" or "mm". Empty keeps the seed's label.
	MasterUnit string

	// DefaultModel names the initial model of the built-in template.
	// Ignored when Seed is set. Defaults to "Default".
	DefaultModel string

	// Tolerance is the endpoint-contiguity tolerance in master units.
	// Zero or negative selects DefaultTolerance.
	Tolerance float64
}

// DefaultCreateOptions returns seedless creation options with the default
// tolerance.
func DefaultCreateOptions() CreateOptions {
	return CreateOptions{Tolerance: DefaultTolerance}
}

// CreateOptionsFromMap parses the string key/value creation options.
// Unrecognized keys are ignored.
func CreateOptionsFromMap(options map[string]string) CreateOptions {
	opts := DefaultCreateOptions()
	for key, value := range options {
		switch key {
		case "SEED":
			opts.Seed = value
		case "APPLICATION":
			opts.Application = value
		case "MASTER_UNIT":
			opts.MasterUnit = value
		case "DEFAULT_MODEL":
			opts.DefaultModel = value
		}
	}
	return opts
}

// CreateLayerOptions configures CreateLayer.
type CreateLayerOptions struct {
	// Overwrite drops an existing model with the same name instead of
	// failing with *DuplicateLayerError.
	Overwrite bool
}
