// Package geo は座標間の距離計算を提供する。
package geo

import "math"

// earthRadiusKM は地球の半径（km）。
const earthRadiusKM = 6371

// Kilometers は2点間の大圏距離をhaversine公式で計算し、
// 整数kmに丸めて返す。表示とフィルタで同じ丸め値を使うことで、
// 画面上の距離と絞り込み結果が食い違わないようにする。
// NaNや範囲外の座標はNaNとして伝播する（maxDistance以下の判定を満たさない）。
func Kilometers(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return math.Round(earthRadiusKM * c)
}

// toRadians は度をラジアンに変換する。
func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ValidLatitude は緯度が有効範囲内かを検証する。NaN/Infは無効。
func ValidLatitude(lat float64) bool {
	return !math.IsNaN(lat) && !math.IsInf(lat, 0) && lat >= -90 && lat <= 90
}

// ValidLongitude は経度が有効範囲内かを検証する。NaN/Infは無効。
func ValidLongitude(lon float64) bool {
	return !math.IsNaN(lon) && !math.IsInf(lon, 0) && lon >= -180 && lon <= 180
}
