package data

import (
	"fmt"
	"strings"
)

// Topic prefix segments: <product>/<deviceClass>.
const (
	ProductName        = "PIOT"
	ConstrainedDevice  = "ConstrainedDevice"
	resourcePathPrefix = ProductName + "/" + ConstrainedDevice + "/"
)

// ResourceName identifies a topic or resource. The set is closed; values
// outside it are rejected when parsing.
type ResourceName int

// Known resources.
const (
	UnknownResource ResourceName = iota
	SensorMsgResource
	ActuatorCmdResource
	ActuatorResponseResource
	SystemPerfMsgResource
	MgmtStatusMsgResource
	MgmtStatusCmdResource
	UpdateMsgResource
	ResourceRegRequestResource
)

var resourceKinds = map[ResourceName]string{
	SensorMsgResource:          "SensorMsg",
	ActuatorCmdResource:        "ActuatorCmd",
	ActuatorResponseResource:   "ActuatorResponse",
	SystemPerfMsgResource:      "SystemPerfMsg",
	MgmtStatusMsgResource:      "MgmtStatusMsg",
	MgmtStatusCmdResource:      "MgmtStatusCmd",
	UpdateMsgResource:          "UpdateMsg",
	ResourceRegRequestResource: "ResourceRegRequest",
}

// ResourceNames returns every known resource in declaration order.
func ResourceNames() []ResourceName {
	return []ResourceName{
		SensorMsgResource,
		ActuatorCmdResource,
		ActuatorResponseResource,
		SystemPerfMsgResource,
		MgmtStatusMsgResource,
		MgmtStatusCmdResource,
		UpdateMsgResource,
		ResourceRegRequestResource,
	}
}

// Kind returns the message kind segment, e.g. "SensorMsg".
func (r ResourceName) Kind() string {
	return resourceKinds[r]
}

// Valid reports whether r is one of the known resources.
func (r ResourceName) Valid() bool {
	_, ok := resourceKinds[r]
	return ok
}

// String returns the full topic, e.g. "PIOT/ConstrainedDevice/SensorMsg".
func (r ResourceName) String() string {
	kind, ok := resourceKinds[r]
	if !ok {
		return fmt.Sprintf("ResourceName(%d)", int(r))
	}
	return resourcePathPrefix + kind
}

// MarshalText encodes the resource as its full topic.
func (r ResourceName) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownResource, int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a full topic.
func (r *ResourceName) UnmarshalText(text []byte) error {
	parsed, err := ParseResourceName(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseResourceName maps a full topic to its ResourceName. Leading and
// trailing slashes are ignored.
func ParseResourceName(s string) (ResourceName, error) {
	s = strings.Trim(s, "/")
	if !strings.HasPrefix(s, resourcePathPrefix) {
		return UnknownResource, fmt.Errorf("%w: %q", ErrUnknownResource, s)
	}
	kind := strings.TrimPrefix(s, resourcePathPrefix)
	for r, k := range resourceKinds {
		if k == kind {
			return r, nil
		}
	}
	return UnknownResource, fmt.Errorf("%w: %q", ErrUnknownResource, s)
}

// SplitResourcePath parses a path of the form <topic>[/<name>] and returns the
// resource and the optional item name.
func SplitResourcePath(path string) (ResourceName, string, error) {
	path = strings.Trim(path, "/")
	parts := strings.SplitN(path, "/", 4)
	if len(parts) < 3 {
		return UnknownResource, "", fmt.Errorf("%w: %q", ErrUnknownResource, path)
	}
	r, err := ParseResourceName(strings.Join(parts[:3], "/"))
	if err != nil {
		return UnknownResource, "", err
	}
	if len(parts) == 4 {
		return r, parts[3], nil
	}
	return r, "", nil
}
