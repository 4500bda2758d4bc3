package wire

import "errors"

// Parameter keys carried in SETUP, ANNOUNCE, and SUBSCRIBE_REQUEST
// messages.
const (
	ParamRole     uint64 = 0x00
	ParamAuthInfo uint64 = 0x02
)

// Role is the value carried by ParamRole: which side of the object flow
// the sending peer intends to take.
type Role byte

const (
	RolePublisher  Role = 1
	RoleSubscriber Role = 2
	RoleBoth       Role = 3
)

var (
	ErrParameterNotFound = errors.New("wire: parameter not found")
	ErrInvalidRole       = errors.New("wire: invalid role parameter")
)

// Parameters is a count-prefixed list of (key: varint, value: lp_bytes)
// pairs, keyed in memory by the varint key. Keys must not repeat.
type Parameters map[uint64][]byte

// Append serializes the parameter count followed by each (key, value)
// pair.
func (params Parameters) Append(b []byte) []byte {
	b = AppendVarint(b, uint64(len(params)))
	for key, value := range params {
		b = AppendVarint(b, key)
		b = AppendBytes(b, value)
	}
	return b
}

// ParseParameters reads a count-prefixed parameter list.
func ParseParameters(r Reader) (Parameters, error) {
	count, err := ReadVarint(r)
	if err != nil {
		return nil, err
	}

	params := make(Parameters, count)
	for i := uint64(0); i < count; i++ {
		key, err := ReadVarint(r)
		if err != nil {
			return nil, err
		}
		value, err := ReadBytes(r)
		if err != nil {
			return nil, err
		}
		params[key] = value
	}
	return params, nil
}

// AddRole sets the ROLE parameter, a single byte.
func (params Parameters) AddRole(role Role) {
	params[ParamRole] = []byte{byte(role)}
}

// Role returns the ROLE parameter's value.
func (params Parameters) Role() (Role, error) {
	v, ok := params[ParamRole]
	if !ok {
		return 0, ErrParameterNotFound
	}
	if len(v) != 1 {
		return 0, ErrInvalidRole
	}
	switch Role(v[0]) {
	case RolePublisher, RoleSubscriber, RoleBoth:
		return Role(v[0]), nil
	default:
		return 0, ErrInvalidRole
	}
}

// AddAuthInfo sets the AUTH_INFO parameter.
func (params Parameters) AddAuthInfo(authInfo string) {
	params[ParamAuthInfo] = []byte(authInfo)
}

// AuthInfo returns the AUTH_INFO parameter's value.
func (params Parameters) AuthInfo() (string, error) {
	v, ok := params[ParamAuthInfo]
	if !ok {
		return "", ErrParameterNotFound
	}
	return string(v), nil
}
