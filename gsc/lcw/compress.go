package lcw

const (
	hashBits = 15
	hashSize = 1 << hashBits
	maxChain = 256

	fillCost = 4
)

// matcher is a hash chain over 3-byte prefixes, most recent position first.
type matcher struct {
	data []byte
	head []int32
	prev []int32
}

func newMatcher(data []byte) *matcher {
	m := &matcher{
		data: data,
		head: make([]int32, hashSize),
		prev: make([]int32, len(data)),
	}
	for i := range m.head {
		m.head[i] = -1
	}
	return m
}

func (m *matcher) hash(pos int) uint32 {
	v := uint32(m.data[pos]) | uint32(m.data[pos+1])<<8 | uint32(m.data[pos+2])<<16
	return (v * 0x9E3779B1) >> (32 - hashBits)
}

func (m *matcher) insert(pos int) {
	if pos+minCopy > len(m.data) {
		return
	}
	h := m.hash(pos)
	m.prev[pos] = m.head[h]
	m.head[h] = int32(pos)
}

type match struct {
	from   int
	length int
	gain   int
	short  bool
}

func (m *matcher) find(pos int) match {
	var best match
	if pos+minCopy > len(m.data) {
		return best
	}
	limit := len(m.data) - pos
	if limit > maxLongCopy {
		limit = maxLongCopy
	}

	for c, n := m.head[m.hash(pos)], 0; c >= 0 && n < maxChain; c, n = m.prev[c], n+1 {
		from := int(c)
		dist := pos - from
		if dist > maxShortDist && from > maxAbsolute {
			continue
		}
		length := 0
		for length < limit && m.data[from+length] == m.data[pos+length] {
			length++
		}
		if length < minCopy {
			continue
		}

		if dist <= maxShortDist {
			l := min(length, maxShortCopy)
			if g := l - 2; g > best.gain {
				best = match{from: from, length: l, gain: g, short: true}
			}
		}
		if from <= maxAbsolute {
			l := min(length, maxMedCopy)
			if g := l - 3; g > best.gain {
				best = match{from: from, length: l, gain: g}
			}
			if length > maxMedCopy {
				if g := length - 5; g > best.gain {
					best = match{from: from, length: length, gain: g}
				}
			}
		}
		if length == limit {
			break
		}
	}
	return best
}

func runLength(data []byte, pos int) int {
	n := 1
	for pos+n < len(data) && n < maxLongCopy && data[pos+n] == data[pos] {
		n++
	}
	return n
}

type writer struct {
	out []byte
}

func (w *writer) word(v int) { w.out = append(w.out, byte(v), byte(v>>8)) }

func (w *writer) literals(lit []byte) {
	for len(lit) > 0 {
		n := min(len(lit), maxLiteral)
		w.out = append(w.out, cmdEnd|byte(n))
		w.out = append(w.out, lit[:n]...)
		lit = lit[n:]
	}
}

func (w *writer) copy(pos int, m match) {
	switch {
	case m.short:
		dist := pos - m.from
		w.out = append(w.out, byte(m.length-minCopy)<<4|byte(dist>>8), byte(dist))
	case m.length <= maxMedCopy:
		w.out = append(w.out, 0xC0|byte(m.length-minCopy))
		w.word(m.from)
	default:
		w.out = append(w.out, cmdLong)
		w.word(m.length)
		w.word(m.from)
	}
}

func (w *writer) fill(count int, value byte) {
	w.out = append(w.out, cmdFill)
	w.word(count)
	w.out = append(w.out, value)
}

// Compress encodes data with a greedy longest-match search. The result always
// ends with the end marker.
func Compress(data []byte) []byte {
	w := &writer{out: make([]byte, 0, len(data)+len(data)/maxLiteral+2)}
	m := newMatcher(data)

	lit, pos := 0, 0
	for pos < len(data) {
		best := m.find(pos)
		run := runLength(data, pos)

		step := 0
		switch {
		case run-fillCost > best.gain && run-fillCost > 0:
			w.literals(data[lit:pos])
			w.fill(run, data[pos])
			step = run
		case best.gain > 0:
			w.literals(data[lit:pos])
			w.copy(pos, best)
			step = best.length
		default:
			m.insert(pos)
			pos++
			continue
		}

		for i := 0; i < step; i++ {
			m.insert(pos + i)
		}
		pos += step
		lit = pos
	}

	w.literals(data[lit:])
	w.out = append(w.out, cmdEnd)
	return w.out
}
