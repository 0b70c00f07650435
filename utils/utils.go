package utils

import (
	"fmt"
	"runtime"

	"clutchtime/config"
)

func ErrorWithTrace(e error) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d\n\t%w", file, line, e)
}

func IsInvalidSeason(season string) bool {
	for _, s := range config.ValidSeasons {
		if s == season {
			return false
		}
	}
	return true
}

func IsInvalidSeasonType(seasonType string) bool {
	for _, t := range config.SeasonTypes {
		if t == seasonType {
			return false
		}
	}
	return true
}
