package aeopts

type optionStrict struct {
	v bool
}

// StrictRegistration makes registering a duplicate descriptor, or
// unregistering an unknown one, return an error. When false the reactor only
// reports the failure through its boolean result.
func StrictRegistration(v bool) Option {
	return &optionStrict{
		v: v,
	}
}

func (o *optionStrict) Type() OptionType {
	return TypeStrictRegistration
}

func (o *optionStrict) Value() interface{} {
	return o.v
}
