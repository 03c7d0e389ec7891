package criteria

import (
	"github.com/viant/navigator/service/dao"
)

// Match returns true when every parameter named in fields matches the corresponding field value.
// Parameters with unknown names are ignored.
func Match(fields map[string]string, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		actual, ok := fields[parameter.Name]
		if !ok {
			continue
		}
		if !parameter.Matches(actual) {
			return false
		}
	}
	return true
}
