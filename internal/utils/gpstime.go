package utils

import "time"

// gpsEpochUnix is 1980-01-06T00:00:00Z, the origin of the GPS time axis.
const gpsEpochUnix int64 = 315964800

// gpsLeaps lists the GPS seconds at which a leap second entered UTC.
// GPS time does not observe leap seconds, so conversions must account
// for every entry at or before the instant in question.
var gpsLeaps = []int64{
	46828800,   // 1981-07-01
	78364801,   // 1982-07-01
	109900802,  // 1983-07-01
	173059203,  // 1985-07-01
	252028804,  // 1988-01-01
	315187205,  // 1990-01-01
	346723206,  // 1991-01-01
	393984007,  // 1992-07-01
	425520008,  // 1993-07-01
	457056009,  // 1994-07-01
	504489610,  // 1996-01-01
	551750411,  // 1997-07-01
	599184012,  // 1999-01-01
	820108813,  // 2006-01-01
	914803214,  // 2009-01-01
	1025136015, // 2012-07-01
	1119744016, // 2015-07-01
	1167264017, // 2017-01-01
}

// GPSToTime converts integer GPS seconds to UTC.
func GPSToTime(gps int64) time.Time {
	var offset int64
	for _, leap := range gpsLeaps {
		if gps >= leap {
			offset++
		}
	}
	return time.Unix(gpsEpochUnix+gps-offset, 0).UTC()
}

// TimeToGPS converts a wall-clock instant to integer GPS seconds,
// truncating any sub-second part.
func TimeToGPS(t time.Time) int64 {
	unix := t.Unix()
	var offset int64
	for i, leap := range gpsLeaps {
		if unix >= gpsEpochUnix+leap-int64(i) {
			offset++
		}
	}
	return unix - gpsEpochUnix + offset
}
