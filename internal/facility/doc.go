// Package facility is the timer facility behind the job scheduler.
//
// A facility accepts one-shot registrations (identity, trigger time, string
// payload), persists them in a Store, and invokes a single dispatch callback
// with the payload once the trigger time has passed. Registrations whose
// trigger time is already in the past fire immediately. Pending records are
// restored from the Store on Start.
package facility
