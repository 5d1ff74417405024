package via

import "encoding/json"

// Publish JSON-marshals msg and publishes to subject.
func Publish[T any](c *Context, subject string, msg T) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.Publish(subject, data)
}
