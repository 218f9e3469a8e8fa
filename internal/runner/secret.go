package runner

import "strings"

// Masked replaces the value of a secret chain param in results and errors.
const Masked = "******"

// secretMarkers flag a param as secret when its lower-cased name contains one of them.
var secretMarkers = []string{"password", "passwd", "secret", "token", "apikey", "api_key", "credential"}

// isSecret reports whether the value of param key must not leave the runner.
func (rm *RunnerManager) isSecret(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range secretMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	for _, name := range rm.appConfig.Runner.SecretParams {
		if strings.EqualFold(name, key) {
			return true
		}
	}
	return false
}

func (rm *RunnerManager) reveal(key, value string) string {
	if value != "" && rm.isSecret(key) {
		return Masked
	}
	return value
}
