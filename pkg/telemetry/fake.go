package telemetry

// FakeTelemetry returns a fixed HostStats, or an error if Err is set.
// Used by tests of components that depend on HostTelemetry.
type FakeTelemetry struct {
	Stats *HostStats
	Err   error
}

func (f *FakeTelemetry) Read() (*HostStats, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Stats, nil
}

var _ HostTelemetry = (*FakeTelemetry)(nil)
