package execution

import (
	"encoding/binary"

	"github.com/icn-project/icn-core/crypto"
	"github.com/icn-project/icn-core/dagstore"
	"github.com/icn-project/icn-core/identity"
)

// Receipt is the write-once, DAG-anchored record of a completed (or failed)
// job execution.
type Receipt struct {
	JobID       string // Cid of the job manifest
	ExecutorDid identity.Did
	ResultCid   string
	CpuMs       uint64
	Success     bool
	Signature   []byte
}

// SignableBytes is the canonical signing form of spec.md 3: UTF-8 job_id,
// UTF-8 executor DID, UTF-8 result_cid, little-endian cpu_ms, single
// success byte.
func (r Receipt) SignableBytes() []byte {
	buf := []byte(r.JobID)
	buf = append(buf, []byte(r.ExecutorDid.String())...)
	buf = append(buf, []byte(r.ResultCid)...)
	var cpu [8]byte
	binary.LittleEndian.PutUint64(cpu[:], r.CpuMs)
	buf = append(buf, cpu[:]...)
	if r.Success {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

// Sign populates r.Signature using the executor's signing key.
func (r *Receipt) Sign(sk *crypto.SigningKey) error {
	sig, err := sk.SignHardened(r.SignableBytes())
	if err != nil {
		return err
	}
	r.Signature = sig
	return nil
}

// Verify checks r.Signature against the verifying key resolved from
// r.ExecutorDid.
func (r Receipt) Verify(resolver identity.Resolver) bool {
	return identity.Verify(resolver, r.ExecutorDid, r.SignableBytes(), r.Signature)
}

// ResultCidFor computes CID(raw=0x55, SHA-256(resultBytes)) as a string.
func ResultCidFor(resultBytes []byte) (string, error) {
	c, err := dagstore.ResultCid(resultBytes)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}
