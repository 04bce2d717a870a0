package modules

// Shutdowner is implemented by modules holding resources that must be released on exit.
type Shutdowner interface {
	Shutdown()
}

// ShutdownModules holds the built modules implementing Shutdowner.
type ShutdownModules struct {
	modules []Shutdowner
}

func NewShutdownModules(modules map[string]interface{}) *ShutdownModules {
	sdm := &ShutdownModules{}
	for _, module := range modules {
		if s, ok := module.(Shutdowner); ok {
			sdm.modules = append(sdm.modules, s)
		}
	}
	return sdm
}

// Shutdown releases the resources of every module.
func (s *ShutdownModules) Shutdown() {
	if s == nil {
		return
	}
	for _, module := range s.modules {
		module.Shutdown()
	}
}
