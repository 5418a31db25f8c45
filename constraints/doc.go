// Package constraints provides the reference constraint types and the
// covariance / square-root information conversions they rely on.
//
// PriorConstraint is the measurement-or-prior pattern: a mean and covariance
// over all or some dimensions of one variable. RelativeConstraint relates two
// variables of equal size by a measured difference.
//
// A measurement of k of a variable's n dimensions is stored as a full-length
// mean (unmeasured entries zero) and a k x n square-root information matrix
// with zero columns for the unmeasured dimensions. Covariance recovers an
// n x n matrix from it; when k < n that matrix has rank k. The deficiency is
// inherent to a partial measurement and is reported, not repaired.
//
// Call Register once at startup to make the types in this package decodable.
package constraints
