package config

import (
	"github.com/AndreyAkinshin/testyl/internal/filter"
	"github.com/AndreyAkinshin/testyl/internal/policy"
)

// BuildProfiles converts a validated configuration into an immutable profile
// set. Base policies are completed from compiled-in defaults, override
// filters are parsed once into ASTs, and declaration order of overrides is
// preserved.
//
// Build assumes Validate has already accepted the config; a filter that
// fails to parse here indicates a caller skipping validation and is
// reported, not panicked on.
func BuildProfiles(cfg *Config) (*policy.ProfileSet, error) {
	profiles := make([]*policy.Profile, 0, len(cfg.Profiles))
	for name, pc := range cfg.Profiles {
		p, err := buildProfile(name, pc)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return policy.NewProfileSet(profiles...), nil
}

func buildProfile(name string, pc ProfileConfig) (*policy.Profile, error) {
	base := policy.Default()
	basePatch, err := buildPatch(OverrideConfig{
		SlowTimeout:   pc.SlowTimeout,
		Retries:       pc.Retries,
		FailureOutput: pc.FailureOutput,
		FailFast:      pc.FailFast,
	})
	if err != nil {
		return nil, err
	}
	basePatch.Apply(&base)

	overrides := make([]policy.OverrideRule, 0, len(pc.Overrides))
	for _, oc := range pc.Overrides {
		expr, err := filter.Parse(oc.Filter)
		if err != nil {
			return nil, err
		}
		patch, err := buildPatch(oc)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, policy.OverrideRule{
			Filter: expr,
			Source: oc.Filter,
			Patch:  patch,
		})
	}

	return &policy.Profile{
		Name:      name,
		Base:      base,
		Overrides: overrides,
	}, nil
}

// buildPatch converts the sparse config fields of an override (or a profile
// base, which shares the same shape minus threads-required) into a policy
// patch.
func buildPatch(oc OverrideConfig) (policy.Patch, error) {
	var patch policy.Patch

	if st := oc.SlowTimeout; st != nil {
		if st.Period != "" {
			d, err := ParseDuration(st.Period)
			if err != nil {
				return policy.Patch{}, err
			}
			patch.SlowTimeoutPeriod = &d
		}
		if st.TerminateAfter != nil {
			patch.TerminateAfter = st.TerminateAfter
		}
		if st.GracePeriod != "" {
			d, err := ParseDuration(st.GracePeriod)
			if err != nil {
				return policy.Patch{}, err
			}
			patch.GracePeriod = &d
		}
	}

	if r := oc.Retries; r != nil {
		if r.Backoff != "" {
			b := policy.Backoff(r.Backoff)
			patch.RetryBackoff = &b
		}
		if r.Count != nil {
			patch.RetryCount = r.Count
		}
		if r.Delay != "" {
			d, err := ParseDuration(r.Delay)
			if err != nil {
				return policy.Patch{}, err
			}
			patch.RetryDelay = &d
		}
	}

	if oc.FailureOutput != "" {
		fo := policy.FailureOutput(oc.FailureOutput)
		patch.FailureOutput = &fo
	}
	if oc.FailFast != nil {
		patch.FailFast = oc.FailFast
	}
	if oc.ThreadsRequired != nil {
		patch.ThreadsRequired = oc.ThreadsRequired
	}

	return patch, nil
}
