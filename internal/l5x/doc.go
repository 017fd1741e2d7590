// Package l5x is the element tree of the vendor project export format.
//
// The structs mirror the subset of the RSLogix5000Content schema that the
// translators read and the source emitter writes: controller, data types,
// modules, add-on instruction definitions, tags, programs, routines (RLL,
// FBD and ST content) and tasks. Decoding and encoding use encoding/xml;
// FBD sheets keep their elements in document order because block
// declaration order is significant for scheduling.
package l5x
