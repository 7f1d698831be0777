/*
Package redund keeps the environment alive across interrupted writes.

With a redundant layout every location holds two copies, A and B, each carrying
a checksum and a one byte flag (0x01 active, 0x00 obsolete). The Manager decides
on load which copy is authoritative and orders the writes on save so that at
least one valid copy survives a power loss at any byte.

# Load

Both copies are read and verified. Resolve then applies the first matching rule:

	1. both valid, only A active          -> A
	2. both valid, only B active          -> B
	3. both valid, both or neither active -> A (B's flag is rewritten on the next save)
	4. only A valid                       -> A
	5. only B valid                       -> B
	6. nothing valid                      -> RetCNoValidCopy, caller falls back to defaults

Flag values other than 0x00 and 0x01 are logged and treated as not active.

# Save

Let OLD be the authoritative copy and NEW the other slot. A manager that has
not loaded yet (a location selected as save target after loading from another
one) runs a load first, so OLD always matches the medium:

	1. encode the table; if it does not fit nothing is written
	2. if the last load was ambiguous, flag NEW obsolete first
	3. erase NEW if the medium needs it, write the new copy flagged active
	4. flag OLD obsolete (in place if the driver can patch, otherwise read-modify-write)
	5. NEW becomes authoritative

A failure in step 3 leaves OLD untouched. A failure in step 4 leaves two active
copies which rule 3 resolves; the manager remembers to fix OLD's flag on the
next save and reports RetCBackendIoFailure.

Non-redundant layouts have a single copy without flag which is overwritten in
place. Such setups are not protected against interrupted writes.

# Metrics

The manager updates these counters (VictoriaMetrics):

	envstore_resolution_total{location,rule}
	envstore_copy_invalid_total{location,slot,reason}
	envstore_save_total{location,result}
*/
package redund
