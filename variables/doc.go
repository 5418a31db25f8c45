// Package variables provides the reference variable types and the Stamped
// capability shared by time-varying variables.
//
// Call Register once at startup to make the types in this package decodable:
//
//	reg := core.NewRegistry()
//	if err := variables.Register(reg); err != nil {
//	    return err
//	}
package variables
