// Package appliance holds the power profiles of individual appliance
// instances and selects them for simulated device operations.
//
// A Profile is the power trace of one complete operating cycle of one
// physical device, stored as step-held samples starting at offset 0. Profiles
// are grouped by appliance type (KETTLE, WASHING_MACHINE, ...) and, within a
// type, by device handle (usually the file name the profile was loaded from).
//
// Profiles are read from XML files, either as explicit samples or as a
// sequence of AMBAL load components that are rendered to per-second samples
// at load time:
//
//	<appliance type="KETTLE" duration="180">
//	  <load type="ON_OFF"><onPower value="2000"/><duration value="0.9"/></load>
//	  <load type="LINEAR"><startPower value="2000"/><endPower value="0"/><duration value="0.1"/></load>
//	</appliance>
//
// The Library is populated once before a run and only read afterwards, so it
// can be shared by concurrent schedulers.
package appliance
