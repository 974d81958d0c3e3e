// Package domain models OpenStreetMap (OSM) XML elements and the address
// cleaning rules applied to them before they are flattened into tables.
//
// # Data Source
//
// Input is an OSM XML export (for example a metro extract downloaded from
// https://www.openstreetmap.org/export). Only two top-level element kinds are
// used:
//
//	<node id="1" lat="47.6" lon="-122.3" user="u" uid="7" version="2"
//	      changeset="9" timestamp="2017-01-01T00:00:00Z">
//	  <tag k="addr:street" v="Rainier Ave S"/>
//	</node>
//
//	<way id="5" user="u" uid="7" version="1" changeset="9" timestamp="...">
//	  <nd ref="1"/>
//	  <nd ref="2"/>
//	  <tag k="highway" v="residential"/>
//	</way>
//
// Relations, bounds and any other top-level elements are ignored.
//
// # Address Conventions
//
// Street names end in a street-type suffix ("Avenue"), optionally followed by a
// directional qualifier ("Rainier Avenue S", "4th Avenue NE"). User-entered data
// abbreviates suffixes inconsistently ("Ave", "AVE", "Av."), so each suffix is
// rewritten through a substitution table into one of the canonical words listed
// in [ExpectedStreetTypes]. Spelled-out directionals ("North", "Southwest") are
// rewritten to their abbreviation.
//
// Postcodes are either 5-digit US ZIP codes in the 9xxxx range or Canadian
// A1A 1A1 codes. Canadian codes are emitted without the inner space and upper
// cased ("v6b 2w9" -> "V6B2W9"). Values that match neither form are passed
// through untouched.
//
// # Audit Before Normalize
//
// The substitution table is expected to cover every non-canonical suffix in the
// dataset. [Auditor] reports the suffixes that are not canonical so the table
// can be extended; [Normalizer.StreetName] returns a [LookupError] when it meets
// a suffix that is neither canonical nor in the table, because silently writing
// an uncleaned value would defeat the purpose of the run.
//
// # Tabular Shape
//
// [Shaper] flattens each element into a [Bundle]: one attribute record plus
// tag records (and, for ways, node-reference records). Tag keys are split on
// their first colon, "addr:street" -> key "addr", type "street"; keys without a
// colon get type "regular". Keys containing punctuation or whitespace are
// dropped. Missing attributes are written as the literal "None".
package domain
