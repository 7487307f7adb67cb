package config

// SecretStringValue replaces secret values in dumps, exported for tests.
const SecretStringValue = "<secret>"

// SecretString holds values that must never reach logs or configuration
// dumps, such as API bearer tokens.
type SecretString string

func (s SecretString) String() string {
	if len(s) == 0 {
		return ""
	}
	return SecretStringValue
}

// MarshalJSON keeps the actual value out of JSON output.
func (s SecretString) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return []byte("\"" + SecretStringValue + "\""), nil
}

// MarshalYAML keeps the actual value out of YAML output.
func (s SecretString) MarshalYAML() (any, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return SecretStringValue, nil
}
