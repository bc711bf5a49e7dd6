// Package msr implements an access-controlled maritime service registry.
//
// A Registry holds three append-only collections: registry operators (MSRs),
// service specifications and service instances. Callers identify themselves
// with a Principal. Roles decide who may register operators and grant roles,
// and an MSR's operator may register specifications and instances on its
// behalf. Instances move through Provisional, Released, Deprecated and
// Withdrawn one step at a time.
//
// Reads never block writers. Every mutation is reported to the configured
// Logger and, on success, to the activity hooks.
//
// # Filter expressions
//
// FilterInstances evaluates a boolean expression once per instance. The
// expression sees these variables:
//
//	id                       instance id
//	name, mrn, version       identity of the instance
//	keywords                 ordered keyword list
//	coverageArea             opaque coverage string
//	status                   "Provisional", "Released", "Deprecated" or "Withdrawn"
//	implementsDesignMRN      design reference, not checked
//	implementsDesignVersion  design reference, not checked
//	msrId, msrName, msrUrl   operator snapshot taken at registration
//	registrant               principal that registered the instance
//	now                      evaluation time
//
// and may call hasKeyword(keywords, kw), statusAtLeast(status, min) and any
// function added with WithCustomFunction. The default engine is expr; CEL is
// available through NewCELEvaluator and JavaScript through NewJSEvaluator in
// binaries built with the js_eval tag.
package msr
