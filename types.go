package msr

import (
	"sort"
	"strings"
)

// Principal is an opaque caller identity, already authenticated by the
// transport that invokes the registry.
type Principal string

// Role names a capability granted to principals.
type Role string

const (
	// RoleBootstrap is held by the deploying principal and may only grant
	// roles.
	RoleBootstrap Role = "DEFAULT_ADMIN_ROLE"
	// RoleAdmin may grant and revoke roles, and register or edit MSRs.
	RoleAdmin Role = "MSR_ADMIN_ROLE"
)

// MSR is a registered service-registry operator.
type MSR struct {
	ID       uint64    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	URL      string    `json:"url" yaml:"url"`
	Operator Principal `json:"operator" yaml:"operator"`
}

// ServiceSpecification is a reusable template describing a class of service.
// Keywords carry set semantics and are stored sorted.
type ServiceSpecification struct {
	ID         uint64    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	Version    string    `json:"version" yaml:"version"`
	Keywords   []string  `json:"keywords" yaml:"keywords"`
	MsrID      uint64    `json:"msrId" yaml:"msrId"`
	Registrant Principal `json:"registrant" yaml:"registrant"`
}

// ServiceInstance is a concrete deployment registered by an MSR operator.
// MsrName and MsrURL are captured when the instance is registered.
type ServiceInstance struct {
	ID                      uint64    `json:"id" yaml:"id"`
	Name                    string    `json:"name" yaml:"name"`
	MRN                     string    `json:"mrn" yaml:"mrn"`
	Version                 string    `json:"version" yaml:"version"`
	Keywords                []string  `json:"keywords" yaml:"keywords"`
	CoverageArea            string    `json:"coverageArea" yaml:"coverageArea"`
	Status                  Status    `json:"status" yaml:"status"`
	ImplementsDesignMRN     string    `json:"implementsDesignMRN" yaml:"implementsDesignMRN"`
	ImplementsDesignVersion string    `json:"implementsDesignVersion" yaml:"implementsDesignVersion"`
	MsrName                 string    `json:"msrName" yaml:"msrName"`
	MsrURL                  string    `json:"msrUrl" yaml:"msrUrl"`
	MsrID                   uint64    `json:"msrId" yaml:"msrId"`
	Registrant              Principal `json:"registrant" yaml:"registrant"`
}

// MsrRef is the MSR block transports may attach to an instance payload. The
// registry ignores it and records the caller's own MSR instead.
type MsrRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ServiceInstanceInput is the caller-supplied part of a service instance.
// Status and Msr are accepted for payload compatibility but never trusted.
type ServiceInstanceInput struct {
	Name                    string `json:"name"`
	MRN                     string `json:"mrn"`
	Version                 string `json:"version"`
	CoverageArea            string `json:"coverageArea"`
	ImplementsDesignMRN     string `json:"implementsDesignMRN"`
	ImplementsDesignVersion string `json:"implementsDesignVersion"`
	Status                  Status `json:"status"`
	Msr                     MsrRef `json:"msr"`
}

// OperatorRecords groups everything attributed to one operator principal.
type OperatorRecords struct {
	Msrs           []MSR
	Specifications []ServiceSpecification
	Instances      []ServiceInstance
}

// RoleAssignment is one row of the role table.
type RoleAssignment struct {
	Role      Role      `json:"role" yaml:"role"`
	Principal Principal `json:"principal" yaml:"principal"`
}

func cloneMSR(m MSR) MSR {
	return m
}

func cloneSpecification(s ServiceSpecification) ServiceSpecification {
	s.Keywords = cloneStrings(s.Keywords)
	return s
}

func cloneInstance(i ServiceInstance) ServiceInstance {
	i.Keywords = cloneStrings(i.Keywords)
	return i
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}

// keywordSet trims, drops empty entries, deduplicates and sorts.
func keywordSet(keywords []string) []string {
	if len(keywords) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		if _, ok := seen[keyword]; ok {
			continue
		}
		seen[keyword] = struct{}{}
		out = append(out, keyword)
	}
	sort.Strings(out)
	return out
}

// keywordSequence keeps order and duplicates.
func keywordSequence(keywords []string) []string {
	if len(keywords) == 0 {
		return []string{}
	}
	return append([]string{}, keywords...)
}
