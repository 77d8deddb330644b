// Package shm opens the shared memory region that carries the audio ring
// between the guest-side producer and the host-side consumer.
//
// Both processes locate the region by a well-known name agreed out of band.
// Whichever side attaches first creates and initializes it; later attaches
// find the magic value and leave the header alone. The region persists until
// a caller explicitly removes it.
//
// Example usage:
//
//	cfg := shm.DefaultConfig()
//	region, err := shm.OpenOrCreate(ctx, cfg)
//	if err != nil {
//	  return err
//	}
//	defer region.Close()
//	w := producer.NewWriter(region.Ring())
//
// Opens are traced with OpenTelemetry (OTel Go SDK v1.30.0).
package shm
