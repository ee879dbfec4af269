package models

import "time"

// Actor identifies who confirms a check-in leg.
type Actor string

const (
	ActorCustomer Actor = "CUSTOMER"
	ActorStaff    Actor = "STAFF"
)

const (
	// CartTTL is how long a cart hold survives before the expiry sweep
	// hard-deletes it.
	CartTTL = 15 * time.Minute

	// CartSweepInterval is the cadence of the cart expiry sweep.
	CartSweepInterval = 60 * time.Second

	// DefaultMaintenanceDays is the span of the window scheduled when a
	// checkout inspection finds the room not ready for the next guest.
	DefaultMaintenanceDays = 3

	// DefaultDailySweepHour is the local hour at which the daily sweeps
	// (maintenance activation and stale-cleaning release) run.
	DefaultDailySweepHour = 14
)
