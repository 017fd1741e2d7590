package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for changing the encoding later.
const (
	DomainStmt    = "l5xst/stmt/v1"
	DomainDecl    = "l5xst/decl/v1"
	DomainProgram = "l5xst/program/v1"
	DomainSource  = "l5xst/source/v1"
)

// hashWithDomain computes SHA-256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SourceDigest identifies raw input bytes, such as a project file or ST
// text, so conversion runs over the same input can be grouped.
func SourceDigest(data []byte) string {
	return hashWithDomain(DomainSource, data)
}

// Fingerprint hashes an encoded value under the given domain.
func Fingerprint(domain string, v IRValue) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Encoded IR never contains unsupported values, so this only fails on a
// programming error.
func MustFingerprint(domain string, v IRValue) string {
	fp, err := Fingerprint(domain, v)
	if err != nil {
		panic(err)
	}
	return fp
}

// StmtHash is the structural identity of a statement including its nested
// bodies. Two statements with equal hashes are equal under IR rules.
func StmtHash(s Stmt) string {
	return MustFingerprint(DomainStmt, EncodeStmt(s))
}

// Digest computes the structural identity of a whole program. Declarations
// are sorted by name so declaration order does not matter; statement order
// does.
func Digest(p *Program) string {
	tags := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, MustFingerprint(DomainDecl, EncodeTag(t)))
	}
	types := make([]string, 0, len(p.Types))
	for _, td := range p.Types {
		types = append(types, MustFingerprint(DomainDecl, EncodeType(td)))
	}
	pous := make([]string, 0, len(p.POUs))
	for _, pou := range p.POUs {
		pous = append(pous, MustFingerprint(DomainDecl, EncodePOU(pou)))
	}
	sortStrings(tags)
	sortStrings(types)
	sortStrings(pous)

	return MustFingerprint(DomainProgram, IRObject{
		"tags":  strs(tags),
		"types": strs(types),
		"pous":  strs(pous),
		"body":  encodeBody(p.Body),
	})
}
