package store

import (
	"strings"
)

// iniDoc is an INI file kept as its original lines, so edits touch only the
// lines they change. Lines are written back with CRLF endings.
type iniDoc struct {
	lines      []string
	terminated bool // whether the last line ends with a newline
}

func parseINI(data []byte) *iniDoc {
	doc := &iniDoc{terminated: true}
	if len(data) == 0 {
		return doc
	}
	lines := strings.Split(string(data), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	} else {
		doc.terminated = false
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	doc.lines = lines
	return doc
}

func (d *iniDoc) bytes() []byte {
	var sb strings.Builder
	for i, line := range d.lines {
		sb.WriteString(line)
		if i < len(d.lines)-1 || d.terminated {
			sb.WriteString("\r\n")
		}
	}
	return []byte(sb.String())
}

func sectionName(line string) (string, bool) {
	if len(line) >= 2 && line[0] == '[' && line[len(line)-1] == ']' {
		return line[1 : len(line)-1], true
	}
	return "", false
}

// section finds the header of section and the index one past its last line.
func (d *iniDoc) section(name string) (header, end int) {
	header = -1
	for i, line := range d.lines {
		current, ok := sectionName(line)
		if !ok {
			continue
		}
		if header >= 0 {
			return header, i
		}
		if current == name {
			header = i
		}
	}
	return header, len(d.lines)
}

func (d *iniDoc) find(section, key string) (line int, value string) {
	header, end := d.section(section)
	if header < 0 {
		return -1, ""
	}
	prefix := key + "="
	for i := header + 1; i < end; i++ {
		if strings.HasPrefix(d.lines[i], prefix) {
			return i, d.lines[i][len(prefix):]
		}
	}
	return -1, ""
}

func (d *iniDoc) get(section, key string) (string, bool) {
	line, value := d.find(section, key)
	return value, line >= 0
}

// set replaces an existing key in place, or adds it at the end of its
// section, or adds a new section at the end of the file.
func (d *iniDoc) set(section, key, value string) {
	entry := key + "=" + value
	if line, _ := d.find(section, key); line >= 0 {
		d.lines[line] = entry
		return
	}

	header, end := d.section(section)
	if header < 0 {
		d.lines = append(d.lines, "["+section+"]", entry)
		d.terminated = true
		return
	}
	d.lines = append(d.lines[:end], append([]string{entry}, d.lines[end:]...)...)
	if end == len(d.lines)-1 {
		d.terminated = true
	}
}

func (d *iniDoc) deleteKey(section, key string) bool {
	line, _ := d.find(section, key)
	if line < 0 {
		return false
	}
	d.lines = append(d.lines[:line], d.lines[line+1:]...)
	return true
}

func (d *iniDoc) deleteSection(section string) bool {
	header, end := d.section(section)
	if header < 0 {
		return false
	}
	d.lines = append(d.lines[:header], d.lines[end:]...)
	return true
}

func (d *iniDoc) hasSection(section string) bool {
	header, _ := d.section(section)
	return header >= 0
}
